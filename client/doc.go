// Package client provides the HTTP collaborator of a batch, built on
// [net/http].
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithUserAgent("pakfetch/1.0"),
//		client.WithLogger(logger),
//	)
//
// # Fetching
//
// [Client.Fetch] returns the open response body and its announced
// length. Every non-2xx answer becomes an [*UnexpectedStatusError]
// carrying at most 4KB of the body:
//
//	body, size, err := c.Fetch(ctx, "https://cdn.example.com/a.pak")
//	if err != nil { ... }
//	defer body.Close()
//
// No request is retried here. Retrying is the job of
// [github.com/adamwoolhether/pakfetch/download.Task].
package client
