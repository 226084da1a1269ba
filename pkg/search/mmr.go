package search

import (
	"math"
)

// MaximalMarginalRelevance implements the Maximal Marginal Relevance
// algorithm. It takes a query embedding, a list of embeddings, a lambda
// multiplier, and a number of results to return. It returns a list of
// indices of the embeddings that are most relevant to the query while
// penalizing redundancy among the selected set.
// See https://www.cs.cmu.edu/~jgc/publication/The_Use_MMR_Diversity_Based_LTMIR_1998.pdf
func MaximalMarginalRelevance(
	queryEmbedding []float32,
	embeddingList [][]float32,
	lambdaMult float32,
	k int,
) ([]int, error) {
	if k <= 0 || len(embeddingList) == 0 {
		return []int{}, nil
	}

	lambda := float64(lambdaMult)

	similarityToQuery := make([]float64, len(embeddingList))
	for i, embedding := range embeddingList {
		sim, err := CosineSimilarity(queryEmbedding, embedding)
		if err != nil {
			return nil, err
		}
		similarityToQuery[i] = sim
	}

	mostSimilar := 0
	for i, sim := range similarityToQuery {
		if sim > similarityToQuery[mostSimilar] {
			mostSimilar = i
		}
	}

	idxs := []int{mostSimilar}
	selected := [][]float32{embeddingList[mostSimilar]}

	for len(idxs) < min(k, len(embeddingList)) {
		bestScore := math.Inf(-1)
		idxToAdd := -1

		for i, embedding := range embeddingList {
			if contains(idxs, i) {
				continue
			}
			redundantScore := math.Inf(-1)
			for _, sel := range selected {
				sim, err := CosineSimilarity(embedding, sel)
				if err != nil {
					return nil, err
				}
				if sim > redundantScore {
					redundantScore = sim
				}
			}
			equationScore := lambda*similarityToQuery[i] - (1-lambda)*redundantScore
			if equationScore > bestScore {
				bestScore = equationScore
				idxToAdd = i
			}
		}
		if idxToAdd == -1 {
			break
		}
		idxs = append(idxs, idxToAdd)
		selected = append(selected, embeddingList[idxToAdd])
	}
	return idxs, nil
}

func contains(slice []int, val int) bool {
	for _, item := range slice {
		if item == val {
			return true
		}
	}
	return false
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
