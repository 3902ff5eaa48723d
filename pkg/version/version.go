package version

// Version is the lt release string. Release builds override it:
//
//	go build -ldflags "-X github.com/vanderheijden86/lazytree/pkg/version.Version=v0.2.0" ./cmd/lt
var Version = "v0.1.0-dev"
