package transmission

import (
	"context"
	"encoding/base64"
	"fmt"
)

// RPC method names used by the client.
const (
	MethodTorrentStart       = "torrent-start"
	MethodTorrentStop        = "torrent-stop"
	MethodTorrentVerify      = "torrent-verify"
	MethodTorrentReannounce  = "torrent-reannounce"
	MethodTorrentGet         = "torrent-get"
	MethodTorrentSet         = "torrent-set"
	MethodTorrentAdd         = "torrent-add"
	MethodTorrentRemove      = "torrent-remove"
	MethodTorrentSetLocation = "torrent-set-location"
	MethodSessionStats       = "session-stats"
	MethodSessionGet         = "session-get"
	MethodSessionSet         = "session-set"
)

// Torrent status codes for RPC version 14 and later.
const (
	StatusStopped      = 0
	StatusCheckWait    = 1
	StatusCheck        = 2
	StatusDownloadWait = 3
	StatusDownload     = 4
	StatusSeedWait     = 5
	StatusSeed         = 6
)

// Torrent status codes before RPC version 14.
const (
	LegacyStatusCheckWait = 1
	LegacyStatusCheck     = 2
	LegacyStatusDownload  = 4
	LegacyStatusSeed      = 8
	LegacyStatusStopped   = 16
)

// StatusRPCVersion is the first RPC version using the dense status codes.
const StatusRPCVersion = 14

// DefaultTorrentFields are requested by GetTorrents when no fields are given.
var DefaultTorrentFields = []string{"id", "name", "status", "doneDate", "haveValid", "totalSize"}

// DetailTorrentFields are requested by GetTorrent.
var DetailTorrentFields = []string{
	"id", "name", "hashString", "status", "doneDate", "haveValid", "totalSize",
	"percentDone", "rateDownload", "rateUpload", "uploadLimit", "downloadDir",
	"error", "errorString", "magnetLink",
}

var (
	statusMessages = map[int]string{
		StatusStopped:      "Stopped",
		StatusCheckWait:    "Waiting to verify local files",
		StatusCheck:        "Verifying local files",
		StatusDownloadWait: "Queued for download",
		StatusDownload:     "Downloading",
		StatusSeedWait:     "Queued for seeding",
		StatusSeed:         "Seeding",
	}
	legacyStatusMessages = map[int]string{
		LegacyStatusCheckWait: "Waiting to verify local files",
		LegacyStatusCheck:     "Verifying local files",
		LegacyStatusDownload:  "Downloading",
		LegacyStatusSeed:      "Seeding",
		LegacyStatusStopped:   "Stopped",
	}
)

// StatusMessage translates a torrent status code using the table of the
// given RPC version.
func StatusMessage(rpcVersion, code int) string {
	table := statusMessages
	if rpcVersion < StatusRPCVersion {
		table = legacyStatusMessages
	}
	if msg, ok := table[code]; ok {
		return msg
	}
	return "Unknown"
}

// TorrentStatusMessage translates a status code for the connected daemon.
func (c *Client) TorrentStatusMessage(ctx context.Context, code int) (string, error) {
	version, err := c.RPCVersion(ctx)
	if err != nil {
		return "", err
	}
	return StatusMessage(version, code), nil
}

// idList never returns nil so "ids" is always a list in the request.
func idList(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}

func idsArgs(ids []int) Args {
	return Args{"ids": idList(ids)}
}

func torrentGetArgs(ids []int, fields []string) Args {
	if len(fields) == 0 {
		fields = DefaultTorrentFields
	}
	return Args{
		"fields": fields,
		"ids":    idList(ids),
	}
}

// torrentSetArgs lets an "ids" entry of opts win over the positional ids.
func torrentSetArgs(ids []int, opts Mapper) Args {
	args := mergeArgs(opts, nil)
	if v, ok := args["ids"]; !ok || v == nil {
		args["ids"] = idList(ids)
	}
	return args
}

func addFileArgs(location, downloadDir string, extra Mapper) Args {
	return mergeArgs(extra, Args{
		"download-dir": downloadDir,
		"filename":     location,
	})
}

func addMetainfoArgs(metainfo []byte, downloadDir string, extra Mapper) Args {
	return mergeArgs(extra, Args{
		"download-dir": downloadDir,
		"metainfo":     base64.StdEncoding.EncodeToString(metainfo),
	})
}

func removeArgs(ids []int, deleteLocalData bool) Args {
	return Args{
		"ids":               idList(ids),
		"delete-local-data": deleteLocalData,
	}
}

func moveArgs(ids []int, location string, moveExisting bool) Args {
	return Args{
		"ids":      idList(ids),
		"location": location,
		"move":     moveExisting,
	}
}

// mergeArgs copies base and then overrides; the caller's map is never modified.
func mergeArgs(base Mapper, overrides Args) Args {
	args := Args{}
	if base != nil {
		for k, v := range base.ToMap() {
			args[k] = v
		}
	}
	for k, v := range overrides {
		args[k] = v
	}
	return args
}

// invoke runs a method and turns a non-success result into an error.
func (c *Client) invoke(ctx context.Context, action, method string, args Args) (*Response, error) {
	resp, err := c.Call(ctx, method, args)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", action, err)
	}
	if err := resp.Err(); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", action, err)
	}
	return resp, nil
}

// StartTorrents starts the given torrents. With no ids the daemon starts
// every torrent.
func (c *Client) StartTorrents(ctx context.Context, ids ...int) (*Response, error) {
	return c.invoke(ctx, "start torrents", MethodTorrentStart, idsArgs(ids))
}

// StopTorrents stops the given torrents, or every torrent when ids is empty.
func (c *Client) StopTorrents(ctx context.Context, ids ...int) (*Response, error) {
	return c.invoke(ctx, "stop torrents", MethodTorrentStop, idsArgs(ids))
}

// VerifyTorrents queues a local data check.
func (c *Client) VerifyTorrents(ctx context.Context, ids ...int) (*Response, error) {
	return c.invoke(ctx, "verify torrents", MethodTorrentVerify, idsArgs(ids))
}

// ReannounceTorrents asks the trackers for more peers.
func (c *Client) ReannounceTorrents(ctx context.Context, ids ...int) (*Response, error) {
	return c.invoke(ctx, "reannounce torrents", MethodTorrentReannounce, idsArgs(ids))
}

// GetTorrents runs torrent-get. Empty ids select every torrent and empty
// fields select DefaultTorrentFields.
func (c *Client) GetTorrents(ctx context.Context, ids []int, fields []string) (*Response, error) {
	return c.invoke(ctx, "get torrents", MethodTorrentGet, torrentGetArgs(ids, fields))
}

// ListTorrents is GetTorrents decoded into Torrent values.
func (c *Client) ListTorrents(ctx context.Context, opts ListOptions) ([]*Torrent, error) {
	resp, err := c.GetTorrents(ctx, opts.IDs, opts.Fields)
	if err != nil {
		return nil, err
	}

	var list torrentList
	if err := resp.Decode(&list); err != nil {
		return nil, protocolError("error decoding torrent list", err)
	}

	for _, torrent := range list.Torrents {
		if torrent.MagnetURI == "" {
			continue
		}
		torrent.MagnetLink, err = ParseMagnetLink(torrent.MagnetURI)
		if err != nil {
			return nil, fmt.Errorf("failed to parse magnet link: %w", err)
		}
	}

	return list.Torrents, nil
}

// GetTorrent returns DetailTorrentFields for a single torrent.
func (c *Client) GetTorrent(ctx context.Context, id int) (*Torrent, error) {
	torrents, err := c.ListTorrents(ctx, ListOptions{IDs: []int{id}, Fields: DetailTorrentFields})
	if err != nil {
		return nil, err
	}
	if len(torrents) == 0 {
		return nil, fmt.Errorf("torrent not found with id: %d", id)
	}
	return torrents[0], nil
}

// SetTorrents runs torrent-set with opts, e.g. TorrentOptions or Args. An
// "ids" entry in opts overrides ids.
func (c *Client) SetTorrents(ctx context.Context, ids []int, opts Mapper) (*Response, error) {
	return c.invoke(ctx, "set torrent properties", MethodTorrentSet, torrentSetArgs(ids, opts))
}

// AddTorrentFile adds a torrent from a path or URL the daemon can read.
// extra may carry any other torrent-add option; filename and download-dir
// always come from the positional arguments. An empty downloadDir uses the
// daemon default.
func (c *Client) AddTorrentFile(ctx context.Context, location, downloadDir string, extra Mapper) (*Response, error) {
	if location == "" {
		return nil, invalidArgument("torrent location must not be empty")
	}
	return c.invoke(ctx, "add torrent", MethodTorrentAdd, addFileArgs(location, downloadDir, extra))
}

// AddTorrent is an alias of AddTorrentFile.
func (c *Client) AddTorrent(ctx context.Context, location, downloadDir string, extra Mapper) (*Response, error) {
	return c.AddTorrentFile(ctx, location, downloadDir, extra)
}

// AddTorrentMetainfo adds a torrent from the raw .torrent content.
func (c *Client) AddTorrentMetainfo(ctx context.Context, metainfo []byte, downloadDir string, extra Mapper) (*Response, error) {
	if len(metainfo) == 0 {
		return nil, invalidArgument("torrent metainfo must not be empty")
	}
	return c.invoke(ctx, "add torrent", MethodTorrentAdd, addMetainfoArgs(metainfo, downloadDir, extra))
}

// AddMagnet validates a magnet link and adds it.
func (c *Client) AddMagnet(ctx context.Context, magnetURI, downloadDir string, extra Mapper) (*Response, error) {
	if _, err := ParseMagnetLink(magnetURI); err != nil {
		return nil, NewClientError(ErrorCodeInvalidArgument, "invalid magnet link", err, true)
	}
	return c.AddTorrentFile(ctx, magnetURI, downloadDir, extra)
}

// AddedTorrent extracts torrent_added, or torrent_duplicate when the daemon
// already had the torrent, from a torrent-add response.
func (r *Response) AddedTorrent() (*AddedTorrent, bool, error) {
	var out struct {
		Added     *AddedTorrent `json:"torrent_added"`
		Duplicate *AddedTorrent `json:"torrent_duplicate"`
	}
	if err := r.Decode(&out); err != nil {
		return nil, false, err
	}
	if out.Added != nil {
		return out.Added, false, nil
	}
	if out.Duplicate != nil {
		return out.Duplicate, true, nil
	}
	return nil, false, protocolError("torrent-add response carries no torrent", nil)
}

// RemoveTorrents removes torrents and optionally their data. At least one
// id is required since an empty list would remove every torrent.
func (c *Client) RemoveTorrents(ctx context.Context, ids []int, deleteLocalData bool) (*Response, error) {
	if len(ids) == 0 {
		return nil, invalidArgument("remove requires at least one torrent id")
	}
	return c.invoke(ctx, "remove torrents", MethodTorrentRemove, removeArgs(ids, deleteLocalData))
}

// MoveTorrents sets a new storage location. With moveExisting the data is
// moved, otherwise the daemon looks for it at location.
func (c *Client) MoveTorrents(ctx context.Context, ids []int, location string, moveExisting bool) (*Response, error) {
	if len(ids) == 0 {
		return nil, invalidArgument("move requires at least one torrent id")
	}
	if location == "" {
		return nil, invalidArgument("move requires a location")
	}
	return c.invoke(ctx, "move torrents", MethodTorrentSetLocation, moveArgs(ids, location, moveExisting))
}
