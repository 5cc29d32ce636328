// Package intern provides a bidirectional item-to-id manager.
//
// An Interner assigns each distinct item a unique id and answers lookups
// in both directions:
//
//	ids := intern.New[string]()
//
//	id, _ := ids.Insert("alpha") // fresh id
//	id2, _ := ids.Insert("alpha") // same id, idempotent
//
//	ids.IdOf("alpha")  // id, true
//	ids.ItemOf(id)     // "alpha", true
//	ids.Delete("alpha") // id released for reuse
//
// Storage and id allocation are delegated to a registry.Typed; the
// interner holds the single handle per item, so deleting an item
// reclaims its id deterministically.
package intern
