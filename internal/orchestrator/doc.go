// Package orchestrator ties the specialist router and the signal board to a
// persistent store.
//
// A Coordinator is built once per process. It provides:
//   - Routing: tasks are matched to specialists and the touched profiles are saved
//   - Outcomes: reported quality feeds both the registry and the board
//   - Sweeping: a background loop drops faded signals and snapshots the rest
//   - Workers: stigmergic workers whose deposits are persisted as they happen
//
// Persistence is best effort. Failures are logged and counted but never fail
// a routing or deposit call.
//
// Example usage:
//
//	store, _ := persist.OpenStore(persist.DriverSQLite, persist.DefaultDBPath())
//	coord := orchestrator.New(orchestrator.RequiredConfig{
//		Router: resonance.New(),
//		Board:  stigmergy.New(),
//	}, orchestrator.WithStore(store))
//	if err := coord.Load(ctx); err != nil {
//		return err
//	}
//	decision := coord.Route(ctx, task)
package orchestrator
