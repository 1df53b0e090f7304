package stray

type Weight struct{ RefTime, ProofSize uint64 }

//weight:derive Weight{}
type Cost int

func f(n int) int {
	//weight:derive Weight{}
	return n
}
