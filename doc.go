// Package lexivec demonstrates approximate nearest neighbor search over
// word embeddings.
//
// A Hierarchical Navigable Small World graph (index/hnsw) and an
// exhaustive linear scan (index/flat) are built over one shared vector
// store, so the graph's answers can be checked against exact ground
// truth. The Evaluator runs a query word through both indexes and
// reports recall: the fraction of true nearest neighbors the graph
// found.
//
// Corpora in the fastText text format are loaded with the corpus
// package, which handles gzip and lz4 compression and can fetch files
// over HTTP, S3 or MinIO.
//
//	store := vectorstore.New()
//	graph, _ := hnsw.New(store)
//	exact, _ := flat.New(store)
//
//	r, _ := corpus.Open("cc.en.300.vec.gz")
//	graph.BulkInsert(ctx, r.Records())
//
//	ev, _ := lexivec.NewEvaluator(store, graph, exact).Evaluate(ctx, "cat", 10)
//	fmt.Println(ev.Recall)
package lexivec
