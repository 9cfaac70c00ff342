package cmd

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// addServerFlags registers the development server flags shared by every
// command that serves.
func addServerFlags(flags *pflag.FlagSet) {
	flags.IntP("port", "p", 3000, "Port to serve on")
	flags.String("host", "localhost", "Host to bind to")
	flags.Bool("no-open", false, "Don't open a browser on start")
}

// bindFlags maps flags onto configuration keys. Only flags set on the command
// line override the file and environment.
func bindFlags(flags *pflag.FlagSet) {
	bindings := map[string]string{
		"log-level": "log.level",
		"port":      "server.port",
		"host":      "server.host",
	}
	for flag, key := range bindings {
		if f := flags.Lookup(flag); f != nil {
			_ = viper.BindPFlag(key, f)
		}
	}

	if f := flags.Lookup("no-open"); f != nil && f.Changed && f.Value.String() == "true" {
		viper.Set("server.open", false)
	}
}
