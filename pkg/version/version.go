package version

// Version is the current application version, overridable at build time:
//
//	go build -ldflags "-X github.com/vanderheijden86/threadview/pkg/version.Version=v0.2.0" ./cmd/tv
var Version = "v0.1.0"
