// Package metatypes - static operator metatype registry.
//
// The registry maps graph operator type strings to per-hardware-operation
// metadata: the hardware op tag, and for weighted operators the weight channel
// axis and the input ports carrying weight and bias. It is built once at init
// time and treated as immutable read-only data.
package metatypes

// HWOp tags a metatype with the hardware operation it lowers to.
type HWOp string

const (
	HWOpConvolution HWOp = "Convolution"
	HWOpMatMul      HWOp = "MatMul"
	HWOpAdd         HWOp = "Add"
	HWOpSubtract    HWOp = "Subtract"
	HWOpMultiply    HWOp = "Multiply"
	HWOpDivide      HWOp = "Divide"
	HWOpAvgPool     HWOp = "AvgPool"
	HWOpMaxPool     HWOp = "MaxPool"
	HWOpConcat      HWOp = "Concat"
	HWOpInterpolate HWOp = "Interpolate"
	HWOpReshape     HWOp = "Reshape"
)

// WeightDef describes the weight and bias of a weighted operator.
type WeightDef struct {
	// ChannelAxis is the weight axis for per-channel quantization: the axis
	// enumerating output filters.
	ChannelAxis int
	// WeightPortID is the input port carrying the weight tensor.
	WeightPortID int
	// BiasPortID is the input port carrying the bias, or a negative value
	// when the operator has no bias.
	BiasPortID int
}

// Metatype is one operator metatype descriptor.
type Metatype struct {
	// Name is the metatype identifier.
	Name string
	// OpTypes are the graph operator type strings the metatype covers.
	OpTypes []string
	// HWOps are the hardware operations the metatype lowers to.
	HWOps []HWOp
	// Weights is non-nil for operators carrying quantizable weights.
	Weights *WeightDef
}

// HasWeights reports whether the operator carries quantizable weights.
func (m *Metatype) HasWeights() bool { return m.Weights != nil }

// ActivationChannelAxis is the channel axis convention for activation tensors
// in NCHW layouts.
const ActivationChannelAxis = 1

// DefaultWeightChannelAxis is the weight channel axis used when an operator is
// not registered or carries no weight definition.
const DefaultWeightChannelAxis = 0

var metatypes = []*Metatype{
	{Name: "ConvOp", OpTypes: []string{"Conv"}, HWOps: []HWOp{HWOpConvolution},
		Weights: &WeightDef{ChannelAxis: 0, WeightPortID: 1, BiasPortID: 2}},
	{Name: "ConvTransposeOp", OpTypes: []string{"ConvTranspose"}, HWOps: []HWOp{HWOpConvolution},
		Weights: &WeightDef{ChannelAxis: 1, WeightPortID: 1, BiasPortID: 2}},
	{Name: "LinearOp", OpTypes: []string{"Gemm"}, HWOps: []HWOp{HWOpMatMul},
		Weights: &WeightDef{ChannelAxis: 0, WeightPortID: 1, BiasPortID: 2}},
	{Name: "MatMulOp", OpTypes: []string{"MatMul"}, HWOps: []HWOp{HWOpMatMul}},
	{Name: "ReluOp", OpTypes: []string{"Relu", "Clip"}},
	{Name: "LeakyReluOp", OpTypes: []string{"LeakyRelu"}},
	{Name: "EluOp", OpTypes: []string{"Elu"}},
	{Name: "PReluOp", OpTypes: []string{"PRelu"}},
	{Name: "SigmoidOp", OpTypes: []string{"Sigmoid"}},
	{Name: "HardSigmoidOp", OpTypes: []string{"HardSigmoid"}},
	{Name: "HardSwishOp", OpTypes: []string{"HardSwish"}},
	{Name: "GlobalAveragePoolOp", OpTypes: []string{"GlobalAveragePool"}, HWOps: []HWOp{HWOpAvgPool}},
	{Name: "AveragePoolOp", OpTypes: []string{"AveragePool"}, HWOps: []HWOp{HWOpAvgPool}},
	{Name: "MaxPoolOp", OpTypes: []string{"MaxPool"}, HWOps: []HWOp{HWOpMaxPool}},
	{Name: "AddOp", OpTypes: []string{"Add"}, HWOps: []HWOp{HWOpAdd}},
	{Name: "SubOp", OpTypes: []string{"Sub"}, HWOps: []HWOp{HWOpSubtract}},
	{Name: "MulOp", OpTypes: []string{"Mul"}, HWOps: []HWOp{HWOpMultiply}},
	{Name: "DivOp", OpTypes: []string{"Div"}, HWOps: []HWOp{HWOpDivide}},
	{Name: "ConcatOp", OpTypes: []string{"Concat"}, HWOps: []HWOp{HWOpConcat}},
	{Name: "BatchNormalizationOp", OpTypes: []string{"BatchNormalization"}},
	{Name: "ResizeOp", OpTypes: []string{"Resize"}, HWOps: []HWOp{HWOpInterpolate}},
	{Name: "ReshapeOp", OpTypes: []string{"Reshape"}, HWOps: []HWOp{HWOpReshape}},
}

var byOpType = buildIndex()

func buildIndex() map[string]*Metatype {
	index := make(map[string]*Metatype, len(metatypes))
	for _, m := range metatypes {
		for _, op := range m.OpTypes {
			index[op] = m
		}
	}
	return index
}

// Lookup returns the metatype registered for the given operator type string.
func Lookup(opType string) (*Metatype, bool) {
	m, ok := byOpType[opType]
	return m, ok
}

// WeightChannelAxis returns the weight channel axis for the given operator
// type, falling back to the default for unregistered or weightless operators.
func WeightChannelAxis(opType string) int {
	if m, ok := byOpType[opType]; ok && m.HasWeights() {
		return m.Weights.ChannelAxis
	}
	return DefaultWeightChannelAxis
}

// WeightedOpTypes returns every operator type string carrying quantizable
// weights, in registration order.
func WeightedOpTypes() []string {
	var ops []string
	for _, m := range metatypes {
		if m.HasWeights() {
			ops = append(ops, m.OpTypes...)
		}
	}
	return ops
}
