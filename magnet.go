package transmission

import (
	"net/url"
	"strings"

	"github.com/pkg/errors"
)

// MagnetLink holds the parts of a magnet URI the daemon cares about.
type MagnetLink struct {
	Hash             string
	DisplayName      string
	Trackers         []string
	ExactLength      string
	ExactSource      string
	Keywords         string
	AcceptableSource string
}

// ParseMagnetLink extracts information from a magnet link
func ParseMagnetLink(magnetURI string) (*MagnetLink, error) {
	if !strings.HasPrefix(magnetURI, "magnet:?") {
		return nil, errors.New("invalid magnet link format")
	}

	values, err := url.ParseQuery(strings.TrimPrefix(magnetURI, "magnet:?"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse magnet link query")
	}

	magnet := &MagnetLink{
		DisplayName:      values.Get("dn"),
		Trackers:         values["tr"],
		ExactLength:      values.Get("xl"),
		ExactSource:      values.Get("xs"),
		Keywords:         values.Get("kt"),
		AcceptableSource: values.Get("as"),
	}

	// Transmission only understands BitTorrent info hashes
	for _, topic := range values["xt"] {
		if hash, ok := strings.CutPrefix(topic, "urn:btih:"); ok {
			magnet.Hash = hash
			break
		}
	}
	if magnet.Hash == "" {
		return nil, errors.New("magnet link has no urn:btih exact topic")
	}

	return magnet, nil
}
