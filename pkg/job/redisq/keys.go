package redisq

import "strconv"

type keys struct {
	prefix string
}

func (k keys) job(id string) string { return k.prefix + ":job:" + id }

// queue is the sorted set holding the waiting jobs of one queue at one
// priority.
func (k keys) queue(name string, priority int) string {
	return k.prefix + ":queue:" + name + ":" + strconv.Itoa(priority)
}

// bands indexes every queue key that ever received a job, scored by its
// priority.
func (k keys) bands() string { return k.prefix + ":bands" }

func (k keys) idem(key string) string { return k.prefix + ":idem:" + key }

// fireKey is the idempotency key of one schedule fire.
func fireKey(name string, unix int64) string {
	return "schedule:" + name + ":" + strconv.FormatInt(unix, 10)
}
