package cmd

// Version is the server version reported by the ping endpoint.
// Overridden at build time via -ldflags "-X ...internal/cmd.Version=v1.2.3".
var Version = "dev"
