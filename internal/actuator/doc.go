// Package actuator calls the downstream lock vendor's panel API.
//
// Lock commands commit to the local state store first; the vendor call is
// dispatched afterwards in the background and is purely advisory. Failures
// are logged and surfaced on an observable results channel, never to the
// platform. A disabled actuator turns Dispatch into a no-op so the bridge
// runs cleanly without vendor credentials.
package actuator
