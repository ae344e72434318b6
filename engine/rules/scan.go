package rules

// Scan walks candidates 0..n-1 in order and returns the index of the first
// one accepted by pred, or -1. List order is the only priority signal.
// An error from pred stops the scan.
func Scan(n int, pred func(i int) (bool, error)) (int, error) {
	for i := 0; i < n; i++ {
		ok, err := pred(i)
		if err != nil {
			return -1, err
		}
		if ok {
			return i, nil
		}
	}
	return -1, nil
}
