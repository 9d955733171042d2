// Package swizzle converts rows of encoded-format pixels into rows of a
// destination color type.
//
// A Swizzler is configured once per decode (or per animation frame) with
// a source layout, an optional color table, the destination description
// and horizontal sampling. Each call to Swizzle converts one source row
// and returns a ResultAlpha summarizing the alpha of the written pixels,
// which lets codecs answer "is this image really transparent" without a
// second pass.
//
// # Sub-byte sources
//
// Sources with fewer than 8 bits per pixel (Bit, Index1, Index2, Index4)
// are addressed in bits; all others in bytes. Offsets and deltas keep
// that unit end to end.
//
// # Sampling
//
// Horizontal sampling keeps every sampleX-th source pixel starting at
// StartCoord(sampleX). Vertical sampling is bookkeeping only: callers ask
// RowNeeded for each source row.
package swizzle
