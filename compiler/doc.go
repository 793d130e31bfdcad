/*
Process of compilation

Program Text ->

	preprocess ->

Clean Text ->

	tokenize (lexer) ->

Token Stream ->

	parse (parser) ->

Syntax Tree (ast) ->

	analyze (semantic) ->

Decorated Tree + Symbol Table (table) ->

	lower (irgen) ->

IR Module (ir) ->

	print ->

LLVM-compatible Text
*/
package compiler
