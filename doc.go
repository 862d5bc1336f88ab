/*
Package transmission is a client for the Transmission BitTorrent daemon RPC
protocol.

Highlights:
  - Session id (X-Transmission-Session-Id) negotiation and renewal on 409
  - Argument sanitization: empty values dropped, numeric strings sent as numbers,
    booleans as 0/1, Latin-1 text transcoded to UTF-8
  - Normalized results: dashed keys use underscores, digit-keyed objects become
    slices, empty values are pruned
  - Typed helpers for torrents and session state, raw access through Call and CallRaw
  - Optional rate limiting, Prometheus metrics and slog debug logging

Quick start:

	import (
	    "context"
	    "log"

	    transmission "github.com/jfxdev/go-transmission"
	)

	func main() {
	    client, err := transmission.New(transmission.Config{
	        URL:      "http://localhost:9091/transmission/rpc",
	        Username: "admin",
	        Password: "password",
	    })
	    if err != nil {
	        log.Fatal(err)
	    }
	    defer client.Close()

	    torrents, err := client.ListTorrents(context.Background(), transmission.ListOptions{})
	    if err != nil {
	        log.Fatal(err)
	    }
	    for _, t := range torrents {
	        log.Println(t.ID, t.Name)
	    }
	}

Methods without a typed helper are reachable through Call:

	resp, err := client.Call(ctx, "free-space", transmission.Args{"path": "/downloads"})

The digit-keys rule of NormalizeResult is specific to this protocol: an object
whose keys are all non-negative integers is a list the daemon encoded as an
object.
*/
package transmission
