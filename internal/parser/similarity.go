package parser

// similarityRatio measures how alike two flag names are, as twice the
// number of matched characters over the total length. Matched characters
// come from recursively locating the longest common block, so
// "--instance-ids" vs "--instance-id" scores close to 1.
func similarityRatio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	ab, bb := []byte(a), []byte(b)
	b2j := make(map[byte][]int, len(bb))
	for j, c := range bb {
		b2j[c] = append(b2j[c], j)
	}
	matched := totalMatched(ab, bb, 0, len(ab), 0, len(bb), b2j)
	return 2.0 * float64(matched) / float64(len(a)+len(b))
}

func totalMatched(a, b []byte, alo, ahi, blo, bhi int, b2j map[byte][]int) int {
	i, j, k := longestMatch(a, b, alo, ahi, blo, bhi, b2j)
	if k == 0 {
		return 0
	}
	return k +
		totalMatched(a, b, alo, i, blo, j, b2j) +
		totalMatched(a, b, i+k, ahi, j+k, bhi, b2j)
}

func longestMatch(a, b []byte, alo, ahi, blo, bhi int, b2j map[byte][]int) (besti, bestj, bestsize int) {
	besti, bestj = alo, blo
	j2len := make(map[int]int)
	for i := alo; i < ahi; i++ {
		newJ2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			newJ2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newJ2len
	}
	return besti, bestj, bestsize
}
