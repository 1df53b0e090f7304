package weights

import "errors"

type Weight struct {
	RefTime   uint64
	ProofSize uint64
}

type Cost int

var notAFunc = 3

func costOf(n int) Weight { return Weight{uint64(n), 0} }

func costOfAll(ns ...int) Weight {
	var w Weight
	for _, n := range ns {
		w.RefTime += uint64(n)
	}
	return w
}

func stringCost(s string) Weight { return Weight{uint64(len(s)), 0} }

func twoCosts(n int) (Weight, Weight) { return Weight{}, Weight{uint64(n), 0} }

func intCost(n int) int { return n }

//weight:derive Weight{}
func constant(n int) int { return n }

//weight:derive costOf
func delegated(n int) int { return n }

//weight:derive costOf
func skipsBlank(_ string, n int) int { return n }

//weight:fn costOfAll
func spreadsVariadic(ns ...int) int { return len(ns) }

//weight:derive costOfAll
func passesVariadic(a, b int) int { return a + b }

//weight:derive (Weight{}, Weight{1, 1})
func fallible(n int) error {
	if n == 0 {
		return errors.New("zero")
	}
	return nil
}

//weight:result (Weight{}, Weight{1, 1})
func parse(s string) (n int, err error) { return len(s), nil }

//weight:derive costOf
func tooMany(a, b int) int { // want `costOf takes 1 parameters but tooMany passes 2`
	return a + b
}

//weight:derive costOf
func spreads(ns ...int) int { // want `spreads ns but costOf is not variadic`
	return len(ns)
}

//weight:derive stringCost
func wrongType(n int) int { // want `argument n of type int cannot be passed as string to stringCost`
	return n
}

//weight:derive missing
func undeclared(n int) int { // want `delegate missing is not declared in package weights`
	return n
}

//weight:derive notAFunc
func variable(n int) int { // want `delegate notAFunc is a variable, not a function`
	return n
}

//weight:derive Cost
func typeName(n int) int { // want `delegate Cost is a type, not a function`
	return n
}

//weight:derive twoCosts
func twoResults(n int) int { // want `delegate twoCosts must return a single weight, returns 2 values`
	return n
}

//weight:derive intCost
func wrongWeight(n int) int { // want `delegate intCost returns int, not Weight`
	return n
}

//weight:derive (Weight{}, Weight{1, 1})
func noError(n int) int { // want `function result is not an outcome type`
	return n
}

//weight:derive (Weight{}, Weight{1, 1}, Weight{2, 2})
func threeWeights(n int) error { // want `outcome tuple must hold exactly two weights`
	return nil
}

//weight:fn Weight{}
func forced(n int) int { // want `cannot parse the weight annotation`
	return n
}

//weight:derive Weight{}
//weight:expr Weight{}
func twice(n int) int { // want `twice has 2 weight directives`
	return n
}
