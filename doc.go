/*
Package intercept is a typed interception registry for event buses.

Handlers subscribe to an event kind for a particular bus, either before or after the event executes.
Before handlers may change the event, after handlers see the result.
Subscriptions are released explicitly, and releasing one is safe from any goroutine, any number of times.

  - [github.com/saylorsolutions/intercept/events] has the registry itself, along with bus tags and subscriptions.
  - [github.com/saylorsolutions/intercept/bus] owns one registry per event kind and creates buses that route through them.
  - [github.com/saylorsolutions/intercept/metrics] reports registry activity to Prometheus.

The regstress command drives a hub under concurrent load and checks that every dispatch saw the handlers it should have.
*/
package intercept
