package swizzle

// ScaledDimension returns the size of a dimension sampled every
// sampleSize pixels. It never returns less than 1 for a positive srcDim.
func ScaledDimension(srcDim, sampleSize int) int {
	if sampleSize > srcDim {
		return 1
	}
	return srcDim / sampleSize
}

// StartCoord returns the first source coordinate kept by sampling.
func StartCoord(sampleSize int) int {
	return sampleSize / 2
}

// DstCoord maps a source coordinate to its sampled coordinate.
func DstCoord(srcCoord, sampleSize int) int {
	return srcCoord / sampleSize
}

// IsCoordNecessary reports whether srcCoord survives sampling into a
// dimension of scaledDim.
func IsCoordNecessary(srcCoord, sampleSize, scaledDim int) bool {
	start := StartCoord(sampleSize)
	if srcCoord < start || DstCoord(srcCoord, sampleSize) >= scaledDim {
		return false
	}
	return (srcCoord-start)%sampleSize == 0
}

// ComputeSampleSize returns the integer sample size that best maps
// srcDim to dstDim.
func ComputeSampleSize(srcDim, dstDim int) int {
	if dstDim <= 0 {
		return 1
	}
	s := srcDim / dstDim
	if s < 1 {
		return 1
	}
	return s
}
