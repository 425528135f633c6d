package dict

// pushBucket applies the pruning gate to a raw bucket and emits the
// rewritten subword id, reporting whether anything was emitted. With
// pruneIdxSize == 0 the trainer pruned every bucket and nothing is
// emitted; with a positive size only mapped buckets survive, compacted.
func pushBucket(a accessor, bucket int32, emit func(int32)) bool {
	size := a.pruneIdxSize()
	if size == 0 {
		return false
	}
	if size > 0 {
		mapped, ok := a.pruning(bucket)
		if !ok {
			return false
		}
		bucket = mapped
	}
	emit(int32(a.nWords()) + bucket)
	return true
}

// computeSubwords emits the bucket ids of every character n-gram of the
// padded word whose length is within [minn, maxn]. N-gram growth is by
// code point: a start position must not be a UTF-8 continuation byte,
// and continuation bytes are absorbed into the current code point.
// Length-1 n-grams touching either padding boundary are skipped.
// emitStr, when non-nil, receives the n-gram strings.
func computeSubwords(a accessor, padded string, emit func(int32), emitStr func(string)) {
	cfg := a.argsRef()
	word := []byte(padded)
	for i := 0; i < len(word); i++ {
		if word[i]&0xC0 == 0x80 {
			continue
		}
		var ngram []byte
		j := i
		for n := 1; j < len(word) && n <= cfg.Maxn; n++ {
			ngram = append(ngram, word[j])
			j++
			for j < len(word) && word[j]&0xC0 == 0x80 {
				ngram = append(ngram, word[j])
				j++
			}
			if n >= cfg.Minn && !(n == 1 && (i == 0 || j == len(word))) {
				bucket := int32(uint64(hashBytes(ngram)) % uint64(cfg.Bucket))
				if pushBucket(a, bucket, emit) && emitStr != nil {
					emitStr(string(ngram))
				}
			}
		}
	}
}

// wordNgramCoeff is the rolling-hash multiplier the trainer uses for
// word n-grams.
const wordNgramCoeff uint64 = 116049371

// addWordNgrams appends the bucket ids of all word n-grams over the
// line's token hashes. The 32-bit seed hash widens by sign extension
// (the top-bit rule), and later hashes contribute as signed 32-bit
// values, so negative reinterpretations subtract.
func addWordNgrams(a accessor, line []int32, hashes []uint32, n int) []int32 {
	if a.pruneIdxSize() == 0 {
		return line
	}
	cfg := a.argsRef()
	for i := range hashes {
		h := uint64(int64(int32(hashes[i])))
		for j := i + 1; j < len(hashes) && j < i+n; j++ {
			h2 := uint64(int64(int32(hashes[j])))
			h = h*wordNgramCoeff + h2
			bucket := int32(h % uint64(cfg.Bucket))
			if a.pruneIdxSize() > 0 {
				mapped, ok := a.pruning(bucket)
				if !ok {
					continue
				}
				bucket = mapped
			}
			line = append(line, int32(a.nWords())+bucket)
		}
	}
	return line
}
