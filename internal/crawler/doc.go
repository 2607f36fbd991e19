// Package crawler discovers the pages of a site for a scan file.
//
// Discoverer starts from one URL, follows same-host links breadth first
// and turns every HTML page it reaches into a PageSpec with a readable
// title and the status code the page answered with. Requests can go
// through a SOCKS5 proxy and carry the scan's cookies, so the pages seen
// here are the ones the browser will see.
//
// # Usage
//
//	client, err := crawler.NewHTTPClient(crawler.ClientConfig{Timeout: 30 * time.Second})
//	d := crawler.NewDiscoverer(client, crawler.WithMaxDepth(1))
//	pages, err := d.Discover(ctx, "https://example.com")
package crawler
