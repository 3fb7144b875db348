package functions

// builtinTable lists the resolvers of the built-in function library.
func builtinTable() []Resolver {
	var rs []Resolver
	rs = append(rs, aggregateFunctions()...)
	rs = append(rs, setFunctions()...)
	rs = append(rs, descendantsFunctions()...)
	rs = append(rs, memberFunctions()...)
	rs = append(rs, infoFunctions()...)
	rs = append(rs, builderFunctions()...)
	rs = append(rs, logicalFunctions()...)
	rs = append(rs, numericFunctions()...)
	return rs
}
