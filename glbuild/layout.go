package glbuild

import "fmt"

// Vertex layout bits. Bits [0, MaxStages) mark stages that read their own
// texture coordinate attribute, stages without it use the position.
const (
	// LayoutColor marks per-vertex color. Only valid on draw state, descriptors express it as [InputAttribute].
	LayoutColor uint32 = 1 << (MaxStages + iota)
	// LayoutCoverage marks per-vertex coverage. Only valid on draw state, descriptors express it as [InputAttribute].
	LayoutCoverage
	// LayoutEdge marks per-vertex edge data interpreted according to [EdgeType].
	LayoutEdge
	// LayoutViewMatrixAttrib supplies the view matrix as a constant vertex attribute instead of a uniform.
	LayoutViewMatrixAttrib
	// LayoutPointSize makes the vertex shader write gl_PointSize.
	LayoutPointSize
)

const layoutStageMatrixShift = MaxStages + 5

const (
	layoutTexCoordMask     uint32 = 1<<MaxStages - 1
	layoutStageMatrixMask  uint32 = (1<<MaxStages - 1) << layoutStageMatrixShift
	layoutMatrixAttribMask        = LayoutViewMatrixAttrib | layoutStageMatrixMask
	layoutMask                    = layoutTexCoordMask | LayoutColor | LayoutCoverage | LayoutEdge | LayoutViewMatrixAttrib | LayoutPointSize | layoutStageMatrixMask
)

// LayoutStageTexCoord is the layout bit for stage's texture coordinate attribute.
func LayoutStageTexCoord(stage int) uint32 {
	checkStage(stage)
	return 1 << stage
}

// LayoutStageMatrixAttrib is the layout bit that supplies stage's texture matrix as constant vertex attribute.
func LayoutStageMatrixAttrib(stage int) uint32 {
	checkStage(stage)
	return 1 << (layoutStageMatrixShift + stage)
}

// Fixed attribute slot convention. Vertex buffer code binds to these slots
// without querying the program. Matrices take three consecutive slots, one per column.
const (
	AttribPosition        = 0
	attribTexCoordBase    = 1
	AttribColor           = attribTexCoordBase + MaxStages
	AttribCoverage        = AttribColor + 1
	AttribEdge            = AttribCoverage + 1
	AttribViewMatrix      = AttribEdge + 1
	attribStageMatrixBase = AttribViewMatrix + 3
	// NumAttribSlots is the number of vertex attribute slots the convention occupies.
	NumAttribSlots = attribStageMatrixBase + 3*MaxStages
)

// AttribTexCoord returns the attribute slot of stage's texture coordinates.
func AttribTexCoord(stage int) uint32 {
	checkStage(stage)
	return uint32(attribTexCoordBase + stage)
}

// AttribStageMatrix returns the first of the three attribute slots holding stage's texture matrix rows.
func AttribStageMatrix(stage int) uint32 {
	checkStage(stage)
	return uint32(attribStageMatrixBase + 3*stage)
}

func checkStage(stage int) {
	if stage < 0 || stage >= MaxStages {
		panic(fmt.Sprintf("glbuild: stage %d out of range [0,%d)", stage, MaxStages))
	}
}

// Attribute input names used in generated vertex shaders.
const (
	AttribNamePosition = "aPosition"
	AttribNameColor    = "aColor"
	AttribNameCoverage = "aCoverage"
	AttribNameEdge     = "aEdge"
)

// AttribBinding ties a vertex shader input to its fixed slot.
type AttribBinding struct {
	Name string
	Slot uint32
}
