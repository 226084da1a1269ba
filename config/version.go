package config

// VersionString is the version of the mnemo server. It is set at build time.
var VersionString = "dev"
