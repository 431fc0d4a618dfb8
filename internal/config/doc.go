// Package config provides configuration parsing for the storefront service.
//
// The configuration is stored in storefront.json (or storefront.yaml) next
// to an optional .env file. Every field has a default, so the file itself
// is optional.
//
// # Configuration File Structure
//
//	{
//	  "server": {
//	    "addr": ":8080",
//	    "readTimeout": "10s",
//	    "shutdownTimeout": "15s",
//	    "allowedOrigins": ["https://shop.example.com"]
//	  },
//	  "catalog": {
//	    "path": "catalog.json"
//	  },
//	  "store": {
//	    "driver": "redis",
//	    "redisUrl": "redis://localhost:6379/0",
//	    "prefix": "storefront:",
//	    "ttl": "720h"
//	  },
//	  "shop": {
//	    "pageSize": 12
//	  },
//	  "metrics": {
//	    "enabled": true,
//	    "tracing": false
//	  },
//	  "log": {
//	    "level": "info",
//	    "format": "json"
//	  }
//	}
//
// # Environment
//
// STOREFRONT_* variables override file values, for example
// STOREFRONT_ADDR, STOREFRONT_STORE_DRIVER, STOREFRONT_REDIS_URL,
// STOREFRONT_S3_BUCKET, STOREFRONT_PAGE_SIZE and STOREFRONT_LOG_LEVEL.
// The process environment wins over .env.
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listening on", cfg.Server.Addr)
package config
