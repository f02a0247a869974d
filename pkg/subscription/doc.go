// Package subscription implements the subscription record model, the storage
// contract over a durable key-value store, and the registry that manages the
// subscription lifecycle.
//
// A subscription binds an owner to exactly one push destination: either a
// browser push service endpoint (web push) or a native platform endpoint
// handle (APNS/FCM). The subscription ID is derived deterministically from
// the target identity, so re-registering the same physical endpoint is
// idempotent and converges to a single record.
//
// # Storage backends
//
// Four Storage implementations ship with the package:
//
//   - MemoryStorage — mutex-guarded map, for development and tests.
//   - DynamoStorage — DynamoDB table keyed PK=owner_id, SK=subscription_id.
//   - RedisStorage — hash per record with owner and global index sets.
//   - MongoStorage — document per record with a compound _id.
//
// All backends implement RecordSuccess/RecordFailure as per-key atomic
// updates (UpdateItem expressions, HINCRBY, $inc) so the failure counter
// never loses increments under concurrent dispatches.
//
// # Lifecycle
//
// Records are created by Registry.Register, mutated on every dispatch attempt
// through the RecordSuccess/RecordFailure write-through, and deleted only by
// explicit deregistration. A terminal transport failure retires a record
// (status=inactive) but never deletes it; retired records remain visible via
// Registry.List for audit.
//
// # Usage
//
//	storage := subscription.NewDynamoStorage(client, "push-subscriptions")
//	registry := subscription.NewRegistry(storage)
//
//	sub, err := registry.Register(ctx, "u1", subscription.Target{
//	    Kind:     subscription.KindWebPush,
//	    Endpoint: "https://push.example.com/v2/abc",
//	    P256dh:   "...",
//	    Auth:     "...",
//	})
package subscription
