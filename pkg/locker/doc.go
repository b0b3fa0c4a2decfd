// Package locker serializes work per key.
//
// Local is an in-process keyed mutex; entries are reference counted and
// dropped as soon as nobody holds or waits for them. Redis provides the same
// contract across processes using SET NX PX with an owner token and a
// compare-and-delete release script, so an expired lock taken over by another
// owner is never released by the previous one.
//
// Both satisfy the Lock(ctx, key) (unlock func(), error) contract: Lock blocks
// until the key is free or ctx is done.
package locker
