// Package gemini implements the Google Gemini generateContent adapter.
//
// Gemini authenticates with the API key in the URL query rather than a
// header. The descriptor endpoint may contain a {model} placeholder, which
// BuildRequest replaces with the call's model before appending key=<secret>.
// The request URL therefore carries the secret; the shared transport strips
// query strings from everything it logs or returns in errors.
package gemini
