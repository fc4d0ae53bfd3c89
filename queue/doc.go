// Package queue provides the Redis-backed queue source the pipeline workers
// pop from.
//
// Producers LPUSH JSON payloads onto a Redis list; workers BRPOP from the
// other end with an idle timeout. A pop that times out reports "nothing
// available" as a nil item and a nil error, which workers treat as the signal
// to terminate.
//
// # Usage
//
// Opening a connection:
//
//	client, err := queue.NewRedisClient(queue.RedisOptions{
//		URL: queue.URLFromHost(os.Getenv("REDIS_HOST")),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
// Popping with an idle timeout:
//
//	item, err := client.PopBlocking(ctx, "events_queue", 5*time.Second)
//	if err != nil {
//		return err
//	}
//	if item == nil {
//		// queue stayed empty for 5s
//	}
//
// Pushing payloads:
//
//	err := client.Push(ctx, "events_queue", `{"index":1,"wday":2,"payload":"p","price":9.5,"user_id":3}`)
//
// # Connections
//
// RedisClient wraps a go-redis client and is safe for concurrent use, but the
// pipeline opens one RedisClient per worker (see Opener) with a pool size of
// one, so workers never contend on a shared transport.
package queue
