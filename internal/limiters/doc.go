// Package limiters provides the fixed-window request throttles the engine
// applies before any credential or challenge work: per-email and per-IP
// counters with a Redis TTL window. These limiters bound request floods;
// per-challenge attempt budgets live in the challenge records themselves.
package limiters
