package config

import (
	"flag"
	"time"

	"github.com/dmitrijs2005/fedinode/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-d string     PostgreSQL DSN
//	-b string     public base URL of this node
//	-n string     federation domain (defaults to the base URL host)
//	-s string     JWT HMAC secret key for the admin API
//	-t int        admin token validity, minutes
//	-k int        RSA key size in bits
//	-f int        remote actor fetch timeout, seconds
//	-ttl int      remote actor cache TTL, minutes
//	-cs int       remote actor cache size (entries)
//	-l string     log level
//	-u string     S3 root user
//	-p string     S3 root password
//	-bucket string S3 bucket name
//	-g string     S3 region
//	-e string     S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-m string     public media URL prefix
//
// Notes:
//   - Only the flags registered here are read from os.Args (flagx.ParseOwn),
//     so -c/-config and flags of other commands pass through untouched.
//   - Duration flags are accepted as integers and then converted.
func parseFlags(config *Config) {
	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.BaseURL, "b", config.BaseURL, "public base URL")
	fs.StringVar(&config.Domain, "n", config.Domain, "federation domain")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	adminTokenValidity := fs.Int("t", int(config.AdminTokenValidityDuration.Minutes()), "admin token validity (in minutes)")
	fs.IntVar(&config.KeyBits, "k", config.KeyBits, "RSA key size in bits")
	fetchTimeout := fs.Int("f", int(config.RemoteFetchTimeout.Seconds()), "remote fetch timeout (in seconds)")
	cacheTTL := fs.Int("ttl", int(config.ActorCacheTTL.Minutes()), "remote actor cache TTL (in minutes)")
	fs.IntVar(&config.ActorCacheSize, "cs", config.ActorCacheSize, "remote actor cache size")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "bucket", config.S3Bucket, "S3 media bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.MediaPublicURL, "m", config.MediaPublicURL, "public media URL prefix")

	if err := flagx.ParseOwn(fs); err != nil {
		panic(err)
	}

	config.AdminTokenValidityDuration = time.Duration(*adminTokenValidity) * time.Minute
	config.RemoteFetchTimeout = time.Duration(*fetchTimeout) * time.Second
	config.ActorCacheTTL = time.Duration(*cacheTTL) * time.Minute
}
