// Package assets validates asset references inside staged HTML templates.
//
// Scan parses every template in the payload with goquery, collects local
// href/src/srcset values, resolves them against the payload tree, and
// reports references whose targets do not exist. The builder decides
// whether misses are warnings or failures.
package assets
