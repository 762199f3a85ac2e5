package podbox

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateNameFormat(t *testing.T) {
	name := generateName()
	assert.Regexp(t, `^pd-[0-9a-f]{8}$`, name)
}

func TestGenerateNameIsRandomized(t *testing.T) {
	assert.NotEqual(t, generateName(), generateName())
}

func TestBuildLabelsIncludesManagedAndInstance(t *testing.T) {
	o := CreateOptions{Project: "proj1", Persist: true, DataPath: "/data/x"}
	labels := buildLabels(o, "pd-abcd1234")
	assert.Equal(t, "true", labels[labelManaged])
	assert.Equal(t, "pd-abcd1234", labels[labelInstance])
	assert.Equal(t, "proj1", labels[labelProject])
	assert.Equal(t, "true", labels[labelPersist])
	assert.Equal(t, "/data/x", labels[labelDataPath])
}

func TestBuildLabelsOmitsOptionalFieldsWhenEmpty(t *testing.T) {
	labels := buildLabels(CreateOptions{}, "pd-x")
	_, hasProject := labels[labelProject]
	_, hasPersist := labels[labelPersist]
	assert.False(t, hasProject)
	assert.False(t, hasPersist)
}

func TestBuildBinds(t *testing.T) {
	binds := buildBinds(map[string]string{"/host": "/container"})
	assert.Equal(t, []string{"/host:/container"}, binds)
}

func TestBuildBindsEmpty(t *testing.T) {
	assert.Nil(t, buildBinds(nil))
}
