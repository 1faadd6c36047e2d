// Package loader registers the admin server's features.
//
// Each feature implements Feature:
//
//	type Feature interface {
//	    Name() string
//	    IsEnabled() bool
//	    Load(app fiber.Router) error
//	}
//
// A Manager collects features with Register and mounts the enabled ones
// with LoadAll, in registration order.
package loader
