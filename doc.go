// Package fasttextgo is a read-only predictor for text-classification
// and word-embedding models trained with fastText (binary format
// versions 11 and 12).
//
// It loads a trained model into memory, or memory-maps the large arrays,
// and answers three classes of online queries: supervised top-k label
// prediction with a probability threshold, word / sentence / n-gram
// vector lookup, and nearest-neighbour and analogy queries over the
// vocabulary vectors. Training, online learning and quantizer fitting
// are out of scope; use the C++ fastText tooling for those.
//
// # Quick Start
//
//	ctx := context.Background()
//	ft, _ := fasttextgo.LoadModel(ctx, "model.bin")
//	defer ft.Close()
//
//	preds, _ := ft.Predict("which baking dish is best?", 3, 0.0)
//	for _, p := range preds {
//	    fmt.Println(p.Label, p.Probability())
//	}
//
// # Memory-mapped models
//
// A converted model directory (model.bin or model.ftz, dict.mmap,
// in.mmap) keeps the dictionary and the input matrix on disk and reads
// them through mapped buffers:
//
//	ft, _ := fasttextgo.LoadModel(ctx, "./model-mmap", fasttextgo.WithPreload(true))
//
// Convert a native model with SaveAsMemoryMappedModel or the CLI:
//
//	fasttextgo convert -i model.bin -o ./model-mmap
//
// # Cloud storage
//
// Models can be fetched from a BlobStore (S3, MinIO, or anything
// implementing blobstore.BlobStore) into a local cache directory before
// opening:
//
//	s3Store, _ := s3.New(ctx, "my-bucket", s3.WithPrefix("models/"))
//	ft, _ := fasttextgo.LoadModelFromStore(ctx, s3Store, "langid.bin",
//	    fasttextgo.WithCacheDir("/fast/nvme"))
//
// # Concurrency
//
// A handle keeps internal state (mmap cursors, scratch vectors) and may
// only be used from one goroutine. Clone returns a handle sharing the
// read-only arrays and mappings but positioned independently; cloning is
// O(1) in the model size. The original must outlive its clones, and
// closing it invalidates them.
package fasttextgo
