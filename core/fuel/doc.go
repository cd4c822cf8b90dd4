// Package fuel implements the "car fuel" chat command. A Handler answers the
// command by listing the account's vehicles and replying with the fuel level
// of the first one. A Guard keeps at most one query in flight; invocations
// arriving while a query runs get a busy reply instead.
package fuel
