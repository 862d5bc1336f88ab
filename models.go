package transmission

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Client is a Transmission RPC client. It negotiates and caches the
// session id required by the daemon and sanitizes every request.
type Client struct {
	mu      sync.RWMutex
	config  Config
	client  *http.Client
	logger  *slog.Logger
	limiter *rate.Limiter

	sessionID  string
	rpcVersion int
	tag        int
}

// Config contains runtime client settings and credentials.
type Config struct {
	// URL of the RPC endpoint, DefaultURL when empty.
	URL      string
	Username string
	Password string

	RequestTimeout time.Duration
	// HTTPClient replaces the default transport. RequestTimeout is ignored when set.
	HTTPClient *http.Client

	// RetryOnConflict re-issues a call once when the daemon answers 409 with a
	// fresh session id. When false the call fails with ErrorCodeSessionConflict
	// and only the following calls use the new id.
	RetryOnConflict bool

	// RPCVersion skips the session-get lookup used by TorrentStatusMessage.
	RPCVersion int

	// RateLimit caps outgoing calls per second; zero disables limiting.
	RateLimit float64
	RateBurst int

	Logger  *slog.Logger
	Debug   bool
	Metrics *Metrics
}

// Response is an RPC result after normalization.
type Response struct {
	Result    string         `json:"result"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Tag       int            `json:"tag,omitempty"`
}

// Succeeded reports whether the daemon answered "success".
func (r *Response) Succeeded() bool {
	return r != nil && r.Result == ResultSuccess
}

// Err returns an ErrorCodeRPCFailure error carrying the daemon's result
// string, or nil on success.
func (r *Response) Err() error {
	if r == nil {
		return protocolError("empty response", nil)
	}
	if r.Succeeded() {
		return nil
	}
	return NewClientError(ErrorCodeRPCFailure, r.Result, nil, true)
}

// Decode copies the normalized arguments into out, matching fields by their
// json tag.
func (r *Response) Decode(out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "create decoder")
	}
	if err := decoder.Decode(r.Arguments); err != nil {
		return errors.Wrap(err, "decode arguments")
	}
	return nil
}

// ListOptions selects torrents and fields for ListTorrents.
type ListOptions struct {
	IDs    []int
	Fields []string
}

// Torrent is a subset of the fields returned by torrent-get.
type Torrent struct {
	ID           int         `json:"id"`
	Name         string      `json:"name"`
	HashString   string      `json:"hashString,omitempty"`
	Status       int         `json:"status"`
	DoneDate     int64       `json:"doneDate"`
	HaveValid    int64       `json:"haveValid"`
	TotalSize    int64       `json:"totalSize"`
	PercentDone  float64     `json:"percentDone,omitempty"`
	RateDownload int64       `json:"rateDownload,omitempty"`
	RateUpload   int64       `json:"rateUpload,omitempty"`
	UploadLimit  int64       `json:"uploadLimit,omitempty"`
	DownloadDir  string      `json:"downloadDir,omitempty"`
	Error        int         `json:"error,omitempty"`
	ErrorString  string      `json:"errorString,omitempty"`
	MagnetURI    string      `json:"magnetLink,omitempty"`
	MagnetLink   *MagnetLink `json:"-"`
}

type torrentList struct {
	Torrents []*Torrent `json:"torrents"`
}

// AddedTorrent is returned by torrent-add as torrent_added or torrent_duplicate.
type AddedTorrent struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	HashString string `json:"hashString"`
}

// TransferStats is one of the cumulative/current blocks of session-stats.
type TransferStats struct {
	UploadedBytes   int64 `json:"uploadedBytes"`
	DownloadedBytes int64 `json:"downloadedBytes"`
	FilesAdded      int64 `json:"filesAdded"`
	SessionCount    int64 `json:"sessionCount"`
	SecondsActive   int64 `json:"secondsActive"`
}

// SessionStats represents the session-stats result.
type SessionStats struct {
	ActiveTorrentCount int           `json:"activeTorrentCount"`
	PausedTorrentCount int           `json:"pausedTorrentCount"`
	TorrentCount       int           `json:"torrentCount"`
	DownloadSpeed      int64         `json:"downloadSpeed"`
	UploadSpeed        int64         `json:"uploadSpeed"`
	CumulativeStats    TransferStats `json:"cumulative_stats"`
	CurrentStats       TransferStats `json:"current_stats"`
}

// SessionInfo is a subset of the session-get result.
type SessionInfo struct {
	RPCVersion            int    `json:"rpc_version"`
	RPCVersionMinimum     int    `json:"rpc_version_minimum"`
	Version               string `json:"version"`
	ConfigDir             string `json:"config_dir"`
	DownloadDir           string `json:"download_dir"`
	PeerLimitGlobal       int    `json:"peer_limit_global"`
	PeerLimitPerTorrent   int    `json:"peer_limit_per_torrent"`
	SpeedLimitDown        int    `json:"speed_limit_down"`
	SpeedLimitDownEnabled bool   `json:"speed_limit_down_enabled"`
	SpeedLimitUp          int    `json:"speed_limit_up"`
	SpeedLimitUpEnabled   bool   `json:"speed_limit_up_enabled"`
	AltSpeedEnabled       bool   `json:"alt_speed_enabled"`
}

// TorrentOptions configures torrent-set and the extra options of torrent-add.
// Nil fields are not sent.
type TorrentOptions struct {
	BandwidthPriority   *int
	DownloadLimit       *int
	DownloadLimited     *bool
	FilesWanted         []int
	FilesUnwanted       []int
	HonorsSessionLimits *bool
	Location            string
	PeerLimit           *int
	PriorityHigh        []int
	PriorityLow         []int
	PriorityNormal      []int
	SeedRatioLimit      *float64
	SeedRatioMode       *int
	UploadLimit         *int
	UploadLimited       *bool
	Paused              *bool
}

// ToMap implements Mapper. Empty fields are removed later by SanitizeArguments.
func (o TorrentOptions) ToMap() map[string]any {
	return map[string]any{
		"bandwidthPriority":   o.BandwidthPriority,
		"downloadLimit":       o.DownloadLimit,
		"downloadLimited":     o.DownloadLimited,
		"files-wanted":        o.FilesWanted,
		"files-unwanted":      o.FilesUnwanted,
		"honorsSessionLimits": o.HonorsSessionLimits,
		"location":            o.Location,
		"peer-limit":          o.PeerLimit,
		"priority-high":       o.PriorityHigh,
		"priority-low":        o.PriorityLow,
		"priority-normal":     o.PriorityNormal,
		"seedRatioLimit":      o.SeedRatioLimit,
		"seedRatioMode":       o.SeedRatioMode,
		"uploadLimit":         o.UploadLimit,
		"uploadLimited":       o.UploadLimited,
		"paused":              o.Paused,
	}
}
