// Package regular implements bidirectional structural matching and
// templating over tree-shaped data.
//
// A template is a tree of maps, lists and scalars in which some leaves are
// placeholders. Matching a template against data yields every consistent
// assignment of data values to the template's symbols; formatting applies
// those assignments to a template (the same one or another) to build new
// data.
//
// # Data Model
//
// Scalars:      null, bool, int, float, str
// Containers:   list, map (ordered entries, unique keys)
// Placeholders: symbol, transform, optional (templates only)
//
// # Placeholders
//
//	Sym("name")                      bind the data value here to name
//	Trans(Sym("n"), fwd, rev)        bind rev(data); format with fwd(value)
//	MustTransMap(Sym("s"), pairs)    same, from a bijective table
//	Opt(t)                           t may fail to match
//
// # Matching
//
// A symbol that occurs more than once must bind equal values everywhere it
// occurs: binding sets from independent positions are equi-joined on their
// shared symbols. A list template element matches every data element it
// can, one binding set per match, so lists fan out.
//
//	m := regular.Match(template, data)
//	sets, err := m.All()
//
// # Formatting
//
// Format expands every list element once per distinct combination of the
// symbols it uses, which regroups data:
//
//	byPerson := regular.List(regular.Map(
//	    regular.FieldVal("name", regular.Sym("name")),
//	    regular.FieldVal("addresses", regular.List(regular.Map(
//	        regular.FieldVal("state", regular.Sym("state")))))))
//	byState := regular.List(regular.Map(
//	    regular.FieldVal("state", regular.Sym("state")),
//	    regular.FieldVal("names", regular.List(regular.Sym("name")))))
//	out, err := regular.Format(byState, regular.Match(byPerson, people))
//
// Formatting with a binding set that leaves symbols unbound returns a
// template that can be matched and formatted again; transforms and
// optionals resolve once, when their contents are complete. Clean strips
// what is still unresolved.
//
// # Text Forms
//
// Emit renders values compactly for logs and errors. The JSON bridge reads
// and writes templates with $-markers ({"$sym": "name"}).
package regular
