package config

import (
	"flag"
	"os"
	"time"

	"profilevault/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-d string   data directory
//	-n string   catalogue DSN (sqlite path or postgres:// URL)
//	-s string   token signing secret
//	-i int      idle timeout, minutes
//	-w int      idle warning window, seconds
//	-m int      minimize grace delay, seconds
//	-x int      max active sessions per profile
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers and converted to time.Duration values.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-n", "-s", "-i", "-w", "-m", "-x", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.DataDir, "d", config.DataDir, "data directory")
	fs.StringVar(&config.CatalogDSN, "n", config.CatalogDSN, "catalogue DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	idleTimeout := fs.Int("i", int(config.IdleTimeout.Minutes()), "idle timeout (in minutes)")
	idleWarning := fs.Int("w", int(config.IdleWarning.Seconds()), "idle warning window (in seconds)")
	minimizeGrace := fs.Int("m", int(config.MinimizeGraceDelay.Seconds()), "minimize grace delay (in seconds)")

	fs.IntVar(&config.MaxActiveSessions, "x", config.MaxActiveSessions, "max active sessions per profile")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.IdleTimeout = time.Duration(*idleTimeout) * time.Minute
	config.IdleWarning = time.Duration(*idleWarning) * time.Second
	config.MinimizeGraceDelay = time.Duration(*minimizeGrace) * time.Second
}
