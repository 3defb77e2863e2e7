// Package engine provides helpers for working with the modernc.org/sqlite
// driver in this module: opening connections and registering the vec_cosine,
// vec_l2 and vec_dot SQL scalar functions used by the raw feature cache. It
// intentionally keeps a thin surface so other packages can share the same
// driver instance.
package engine
