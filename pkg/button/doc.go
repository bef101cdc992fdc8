// Package button builds table toolbar button descriptors and realizes them as
// plain nested data for the client side table runtime. A Button collects
// options (extend, text, className, action, editor, columns, exportOptions)
// through chained setters. Nested buttons passed to Buttons or FormButtons are
// realized at call time, and an unauthorized button always realizes to an
// empty mapping regardless of its content. Permission checks go through the
// Authorizer seam so callers can plug in authz.Gate or their own oracle.
package button
