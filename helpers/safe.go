package helpers

import "log"

// safeCall executes op and absorbs its error: the error is logged with the
// subsystem and call-site context, and the caller gets the zero value plus
// ok=false. This is the "don't kill the loop on one bad message" boundary.
func safeCall[T any](subsystem, context string, op func() (T, error)) (T, bool) {
	value, err := op()
	if err != nil {
		log.Printf("⚠️  [%s] %s: %v", subsystem, context, err)
		var zero T
		return zero, false
	}
	return value, true
}

// SafeDBCall wraps a database operation.
func SafeDBCall[T any](context string, op func() (T, error)) (T, bool) {
	return safeCall[T]("db", context, op)
}

// SafeKafkaCall wraps a Kafka operation.
func SafeKafkaCall[T any](context string, op func() (T, error)) (T, bool) {
	return safeCall[T]("kafka", context, op)
}

// SafeRedisCall wraps a Redis operation.
func SafeRedisCall[T any](context string, op func() (T, error)) (T, bool) {
	return safeCall[T]("redis", context, op)
}
