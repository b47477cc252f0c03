// Package translate renders wizard texts into the catalog's publication
// languages through a DeepL-style translation API.
package translate
