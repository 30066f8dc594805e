// Package status implements the gRPC transport of the monitor status.
//
// The service is described by hand instead of generated code: it has a single
// unary method taking google.protobuf.Empty and returning the report as a
// google.protobuf.Struct, so well-known types are enough on both sides.
package status
