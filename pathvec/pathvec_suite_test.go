package pathvec_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func TestPathvec(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "pathvec Suite")
}
