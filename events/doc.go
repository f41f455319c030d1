/*
Package events provides a typed registry that lets independent listeners observe and intercept the execution of an event, scoped to one event bus instance.

# Primitives

An event kind is any type E where *E has an Execute method (see [Event]).
Each event kind gets its own [Registry], created with [NewRegistry].
The registry never creates events or buses, it only connects handlers to dispatches.

A [BusTag] identifies a bus instance.
Tags are compared by identity, and handlers registered under one tag are never invoked by a dispatch for another tag.

# Handlers and Subscriptions

Handlers are registered with [Registry.SubscribeBefore] and [Registry.SubscribeAfter].
A [PreHandler] may modify the event before it executes, while a [PostHandler] gets a copy of the event after it executed.
Each registration returns a [Subscription], and the handler stays registered exactly until that Subscription is disposed.
Disposal only ever removes the registration the Subscription was issued for, and disposing more than once does nothing.

Since Go doesn't have deterministic destructors, there are a few ways to bind a Subscription to a scope:
  - Defer [Subscription.Dispose] in the function that subscribed.
  - Collect subscriptions in a [Group] and close it when the owning component shuts down.
  - Use [Subscription.DisposeWhenDone] to dispose when a [context.Context] is done.

# Dispatch

[Registry.ExecuteEvent] runs before handlers in registration order, then the event's Execute method, then after handlers in registration order.
The first error stops the dispatch and is returned to the caller unchanged.
There's no isolation between handlers: a failing handler prevents every handler after it, and the event itself if it's a before handler.
Failing handlers are not removed or retried.

How dispatch interacts with registration is set with [WithDispatchPolicy].
The default [SnapshotDispatch] lets handlers subscribe and dispose on the same registry while it's dispatching.
[HoldLockDispatch] holds the read lock for the whole dispatch, which makes that deadlock.

# Observing Registries

An [Observer] given with [WithObserver] is told about every registration, disposal, and dispatch.
The metrics package provides a Prometheus implementation.
*/
package events
