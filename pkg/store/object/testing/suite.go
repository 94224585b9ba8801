package testing

import (
	"context"
	"testing"

	"github.com/marmos91/dittostore/pkg/store/object"
)

// StoreTestSuite is a contract test suite for object.Store implementations.
// It tests the interface contract, not implementation details, making it
// reusable across memory and S3 backends.
//
// Usage:
//
//	func TestMyObjectStore(t *testing.T) {
//	    suite := &storetest.StoreTestSuite{
//	        NewStore: func(t *testing.T) object.Store {
//	            return mystore.New()
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, empty store for each test. Backends that
	// cannot be emptied (shared buckets) should scope every key under a
	// unique prefix and return Prefix accordingly.
	NewStore func(t *testing.T) object.Store

	// Prefix is prepended to every key the suite writes.
	Prefix string
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("BasicOperations", suite.RunBasicTests)
	t.Run("ConditionalWrites", suite.RunConditionalTests)
	t.Run("Listing", suite.RunListTests)
}

func (suite *StoreTestSuite) key(name string) string {
	return suite.Prefix + name
}

// testContext returns a standard test context.
func testContext() context.Context {
	return context.Background()
}
