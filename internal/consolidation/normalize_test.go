package consolidation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTitleCaseNormalize_AllLowerTitleCases(t *testing.T) {
	assert.Equal(t, "Machine Learning", titleCaseNormalize("machine learning"))
}

func TestTitleCaseNormalize_AcronymWithDigitLeftAsIs(t *testing.T) {
	assert.Equal(t, "GPT-4", titleCaseNormalize("GPT-4"))
}

func TestTitleCaseNormalize_MixedCaseLeftAsIs(t *testing.T) {
	assert.Equal(t, "TypeScript", titleCaseNormalize("TypeScript"))
}

func TestTitleCaseNormalize_AllCapsLeftAsIs(t *testing.T) {
	assert.Equal(t, "AWS", titleCaseNormalize("AWS"))
}

func TestTitleCaseNormalize_EmptyStringReturnsEmpty(t *testing.T) {
	assert.Equal(t, "", titleCaseNormalize(""))
}

func TestTitleCaseNormalize_SingleAcronymUnchanged(t *testing.T) {
	assert.Equal(t, "NASA", titleCaseNormalize("NASA"))
}

func TestTitleCaseNormalize_MultipleSeparatorsPreserved(t *testing.T) {
	assert.Equal(t, "San Francisco-Bay Area", titleCaseNormalize("san francisco-bay area"))
}
