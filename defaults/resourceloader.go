package defaults

import "github.com/websocks/agent/component/resource"

// NewResourceLoaderWithHTTP builds a component/resource.Loader backed by
// this package's net/http-based HTTPClient, satisfying matcher.ResourceLoader
// directly.
func NewResourceLoaderWithHTTP() *resource.Loader {
	return resource.NewLoader(NewHTTPClient())
}
