// Package callback runs the short-lived loopback HTTP server that receives
// the identity provider redirect on this machine.
//
// The implicit flow returns tokens in the URL fragment. Browsers keep the
// fragment to themselves, so the page served at the callback path reads
// location.hash, clears it from the address bar and posts it back to the
// server, which hands it to WaitForCallback exactly once.
package callback
