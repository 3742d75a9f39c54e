// Package expect scans fixture files for expectation comments.
//
// A fixture annotates each deliberately seeded problem with a trailing (or
// own-line) comment naming the diagnostic it must trigger:
//
//	let x: i32 = "not a number";  // Error: expected i32, found &str
//	let unused = 42;  // Warning: unused variable
//	invalid_user = User("Dave", "not-a-number")  # Type error: str is not int
//
// The marker severity ("Error", "Warning", "Type error") and the free-text
// hint after the colon drive matching. An optional category tag pins the
// taxonomy bucket explicitly: `// Error(borrow): ...`; untagged hints are
// classified by diag.InferCategory. Scanning never modifies the file; the
// fixture bytes reach the external tool untouched.
package expect
