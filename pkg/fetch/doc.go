// Package fetch is the HTTP side of the download phase. Its client
// shares the browser's identity: the same User-Agent and a persistent
// cookie jar, so assets behind an authenticated session download with
// the credentials the collection phase browsed with.
package fetch
