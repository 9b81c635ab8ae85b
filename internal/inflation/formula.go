package inflation

import "github.com/shopspring/decimal"

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// ImpliedInflation returns ((1+fixed/100)/(1+ipca/100)-1)*100 for rates
// quoted in percent. The result is not rounded. ipca must be above -100.
func ImpliedInflation(fixed, ipca decimal.Decimal) decimal.Decimal {
	nominal := one.Add(fixed.Div(hundred))
	linked := one.Add(ipca.Div(hundred))
	return nominal.Div(linked).Sub(one).Mul(hundred)
}
