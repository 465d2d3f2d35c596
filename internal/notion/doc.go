// Package notion is a small client for the Notion REST API endpoints the
// watch list needs: database retrieve and query, page create and update, and
// comments.
//
// Every request funnels through a Queue, which starts at most one request at
// a time, spaces starts by a minimum interval, and retries HTTP 429 responses
// in place after the advertised Retry-After delay. Page properties are
// modelled as PropertyValue, a tagged union over the column kinds the mapper
// writes, so clears ("select": null, "multi_select": []) are explicit values
// rather than omitted keys.
package notion
