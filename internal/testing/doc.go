// Package testing provides test utilities, builders, and mocks shared by
// the unit tests.
//
//   - MockRunner: testify mock of the CLI runner used by the provider bridges
//   - DeploymentBuilder: fluent builder for hand-off deployments
//   - TestContext: a context bounded by a test-friendly timeout
//
// Usage:
//
//	r := &testing.MockRunner{}
//	r.On("Run", mock.Anything, "aws", testing.Args("configure", "list-profiles")).
//	    Return("dev\nprod\n", nil)
package testing
