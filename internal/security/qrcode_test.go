package security_test

import (
	"bytes"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campusdelivery/internal/security"
)

func TestEnrollmentQRIsPNGDataURI(t *testing.T) {
	t.Parallel()

	uri := security.EnrollmentURI("JBSWY3DPEHPK3PXP", "123456", "Campus Delivery")
	dataURI, err := security.EnrollmentQR(uri)
	require.NoError(t, err)

	const prefix = "data:image/png;base64,"
	require.True(t, strings.HasPrefix(dataURI, prefix))

	png, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(dataURI, prefix))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")))
}
