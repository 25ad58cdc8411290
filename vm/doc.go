// Package vm implements the COW tape machine.
//
// This package contains:
//   - The twelve-instruction opcode table and instruction records
//   - The resizable integer tape, tape pointer and one-slot register
//   - Loop resolution by live bracket scanning or a precomputed jump table
//   - Execution limits and the error taxonomy shared with the compiler
//   - Console I/O hooks, a disassembler and CBOR program images
package vm
