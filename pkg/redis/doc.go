// Package redis connects to the Redis server that backs distributed per-user
// locks when several service instances share one store.
//
// Connect retries the initial ping a configurable number of times and is
// bounded by a connect timeout; Healthcheck returns a probe suitable for
// readiness endpoints.
//
//	cfg, err := config.Load[redis.Config]()
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
package redis
