package carta

// Size multipliers in basis points. The table is total over the Size enum;
// UnitPrice panics on an unknown size rather than guessing a fallback.
var sizeBasisPoints = map[Size]int64{
	SizeSmall:  8000,
	SizeMedium: 10000,
	SizeLarge:  13000,
}

// UnitPrice applies the size multiplier to a pizza's base price.
func UnitPrice(base Cents, size Size) Cents {
	bp, ok := sizeBasisPoints[size]
	if !ok {
		panic("carta: no multiplier for size " + string(size))
	}
	return Cents(int64(base) * bp / 10000)
}

// LineTotal prices quantity units of one pizza at one size.
func LineTotal(base Cents, size Size, quantity int) Cents {
	return UnitPrice(base, size) * Cents(quantity)
}
