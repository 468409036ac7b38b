package testutils

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http/httptest"
	"strings"
)

// FormFile is one file part of a multipart upload.
type FormFile struct {
	Name string
	Data []byte
}

// CreateMultipartFormData encodes files under field plus extra text fields.
func CreateMultipartFormData(field string, files []FormFile, fields map[string]string) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", err
		}
	}

	for _, f := range files {
		fw, err := writer.CreateFormFile(field, f.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := fw.Write(f.Data); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}

// PNGData returns a decodable width x height PNG.
func PNGData(width, height int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}

// TestingInterface is the subset of testing.TB the assertions need.
type TestingInterface interface {
	Errorf(format string, args ...interface{})
	Helper()
}

// AssertHTTPStatus checks if the HTTP response has the expected status code
func AssertHTTPStatus(t TestingInterface, resp *httptest.ResponseRecorder, expectedStatus int) {
	t.Helper()
	if resp.Code != expectedStatus {
		t.Errorf("Expected status %d, got %d. Body: %s", expectedStatus, resp.Code, resp.Body.String())
	}
}

// AssertJSONResponse checks the content type and decodes the body into target.
func AssertJSONResponse(t TestingInterface, resp *httptest.ResponseRecorder, target interface{}) bool {
	t.Helper()
	if !strings.Contains(resp.Header().Get("Content-Type"), "application/json") {
		t.Errorf("Expected JSON response, got %s", resp.Header().Get("Content-Type"))
		return false
	}

	if target != nil {
		if err := json.Unmarshal(resp.Body.Bytes(), target); err != nil {
			t.Errorf("Failed to unmarshal JSON response: %v", err)
			return false
		}
	}

	return true
}
