package cli

import "github.com/RoaringBitmap/roaring/v2"

func newBitmapRange(lo, hi uint64) *roaring.Bitmap {
	bm := roaring.New()
	bm.AddRange(lo, hi)
	return bm
}
