package glbuild

import "strconv"

// Global uniform names.
const (
	UniformViewMatrix     = "uViewM"
	UniformColor          = "uColor"
	UniformCoverage       = "uCoverage"
	UniformColorFilter    = "uColorFilter"
	UniformEdges          = "uEdges"
	UniformColorMatrix    = "uColorMatrix"
	UniformColorMatrixVec = "uColorMatrixVec"
)

// StageUniform enumerates the uniforms each texture stage may declare.
type StageUniform uint8

const (
	StageTexMatrix StageUniform = iota
	StageSampler
	StageTexelSize
	StageRadial2Params
	StageKernel
	StageImageIncrement
	StageTexDomain
	numStageUniforms
)

var stageUniformBase = [numStageUniforms]string{
	StageTexMatrix:      "uTexM",
	StageSampler:        "uSampler",
	StageTexelSize:      "uTexelSize",
	StageRadial2Params:  "uRadial2Params",
	StageKernel:         "uKernel",
	StageImageIncrement: "uImageIncrement",
	StageTexDomain:      "uTexDom",
}

var stageUniformNames = func() (names [MaxStages][numStageUniforms]string) {
	for s := range names {
		for u := range names[s] {
			names[s][u] = stageUniformBase[u] + strconv.Itoa(s)
		}
	}
	return names
}()

// Name returns the uniform name of su for stage, i.e. "uKernel1".
func (su StageUniform) Name(stage int) string {
	checkStage(stage)
	return stageUniformNames[stage][su]
}

var uniformNames = func() []string {
	names := []string{UniformViewMatrix, UniformColor, UniformCoverage, UniformColorFilter, UniformEdges, UniformColorMatrix, UniformColorMatrixVec}
	for s := range stageUniformNames {
		names = append(names, stageUniformNames[s][:]...)
	}
	return names
}()

// UniformNames returns every semantic uniform name a generated program may declare
// in a fixed order. The returned slice must not be modified.
func UniformNames() []string { return uniformNames }

// Radial2ParamCount is the length of the two point radial gradient parameter array.
const Radial2ParamCount = 6

func attribTexCoordName(stage int) string { return "aTexCoord" + strconv.Itoa(stage) }
func attribTexMatrixName(stage int) string { return "aTexM" + strconv.Itoa(stage) }

const attribViewMatrixName = "aViewM"
