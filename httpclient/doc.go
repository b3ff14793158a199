// Package httpclient provides the HTTP transport used to reach the remote
// catalog, with optional retry and rate limiting.
//
// Failures are classified twice: first into an *Error (timeout,
// connection, status class) and then into the application taxonomy, so
// callers only ever see *errors.AppError values:
//
//   - connection and timeout failures become TRANSPORT
//   - any non-2xx answer becomes SERVER_STATUS carrying the code
//   - a request that cannot be built becomes INVALID_REQUEST
//   - GetJSON reports an undecodable body as DECODING
//
// # Basic Usage
//
//	client, err := httpclient.New(httpclient.Config{
//	    BaseURL: "https://api.artic.edu/api/v1",
//	    Timeout: 10 * time.Second,
//	    Retry:   httpclient.DefaultRetryConfig(),
//	})
//
//	page, err := httpclient.GetJSON[catalog.Page](ctx, client, "/artworks/search", query)
package httpclient
