// Package calculator implements the debt settlement engine.
//
// Data flows one way: expenses -> balances -> debts -> transfers. Every
// function here is pure; callers fetch expenses from storage and persist
// whatever they decide to record.
package calculator
