// Package document defines the structured-document values passed into
// transform programs and the marshaller that projects arbitrary Go values
// into them. A Node is a small element tree (name, attributes, text,
// children) that templates navigate with Value, Select and First using a
// slash separated path syntax. Marshaller consults an exact-type override
// table first, then the Marshaler/Unmarshaler contract, and finally falls
// back to the encoding/xml struct tag conventions.
package document
